package configserver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// globalName is the document name holding defaults for every application.
const globalName = "application"

// Repository resolves the configuration environment for an application and
// profile.
type Repository interface {
	Resolve(app, profile string) (Environment, error)
}

// FileRepository resolves configuration from YAML documents under a root
// directory.
type FileRepository struct {
	root string
}

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string) (*FileRepository, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("config root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config root %s is not a directory", dir)
	}
	return &FileRepository{root: dir}, nil
}

// Resolve loads every document matching the application and profile,
// most specific first. A request for an unknown application is not an
// error: it resolves to whatever global documents exist, possibly none.
func (r *FileRepository) Resolve(app, profile string) (Environment, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	env := Environment{Name: app, Profiles: []string{profile}}

	for _, name := range documentNames(app, profile) {
		source, ok, err := r.load(name)
		if err != nil {
			return Environment{}, err
		}
		if ok {
			env.PropertySources = append(env.PropertySources, source)
		}
	}
	env.Properties = mergeSources(env.PropertySources)
	return env, nil
}

// documentNames returns candidate document base names, most specific first.
func documentNames(app, profile string) []string {
	var names []string
	if profile != DefaultProfile {
		names = append(names, fmt.Sprintf("%s-%s", app, profile))
	}
	names = append(names, app)
	if app != globalName {
		if profile != DefaultProfile {
			names = append(names, fmt.Sprintf("%s-%s", globalName, profile))
		}
		names = append(names, globalName)
	}
	return names
}

func (r *FileRepository) load(name string) (PropertySource, bool, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(r.root, name+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return PropertySource{}, false, fmt.Errorf("reading %s: %w", path, err)
		}

		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return PropertySource{}, false, fmt.Errorf("parsing %s: %w", path, err)
		}

		return PropertySource{
			Name:       filepath.Base(path),
			Properties: flatten("", doc),
		}, true, nil
	}
	return PropertySource{}, false, nil
}

// flatten converts nested maps into dotted keys. Scalars and lists are kept
// as values.
func flatten(prefix string, doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch nested := v.(type) {
		case map[string]interface{}:
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
		default:
			out[key] = v
		}
	}
	return out
}

// SplitAppProfile parses an "app-profile" document base name. It is the
// inverse of documentNames for single-dash names and is used by watchers to
// tell which application a changed file belongs to.
func SplitAppProfile(base string) (app, profile string) {
	if i := strings.LastIndex(base, "-"); i > 0 {
		return base[:i], base[i+1:]
	}
	return base, DefaultProfile
}
