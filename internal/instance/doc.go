// Package instance orchestrates a local DraCor system: it starts the
// service stack, populates the database from other DraCor instances,
// GitHub corpus repositories or local files, and freezes the loaded
// state as a labeled Docker image.
//
// An Instance is the glue between the lower level packages. It owns no
// state beyond bookkeeping: the running containers and the eXist
// database are the source of truth, and the bookkeeping (which corpus
// came from where, at which commit, with which plays excluded) exists
// only to be written into the manifest of a frozen image.
//
// All operations run sequentially. Corpus imports are long chains of
// dependent HTTP calls against a single local database, so there is
// nothing to gain from fanning out.
package instance
