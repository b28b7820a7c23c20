// Package configserver implements centralized configuration for services.
//
// A file-backed repository resolves configuration for an (application,
// profile) pair from YAML documents under a root directory:
//
//	application.yml                global defaults for every application
//	application-<profile>.yml      global defaults for one profile
//	<app>.yml                      defaults for one application
//	<app>-<profile>.yml            one application, one profile
//
// Resolution returns every matching document as a property source, most
// specific first. Merged lookups therefore let an application-and-profile
// document override the application document, which overrides the global
// profile document, which overrides the global defaults.
//
// The Server exposes resolution over REST (GET /config/:app/:profile) and
// the Client fetches and binds the result on the consuming side.
package configserver
