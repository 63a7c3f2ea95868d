// Package catalog records extraction runs and the clips they produced in a
// SQLite database so earlier output can be listed without rescanning the
// clip directory.
//
// The schema is managed with golang-migrate from embedded migration files;
// Open always brings the database up to the latest version.
package catalog
