// Package cli implements the shelf command line on top of app.Service.
//
// Commands that take a name accept any part of it: the first app, in
// registry order, whose name contains the argument is used. Failures are
// printed as "Error [kind]: cause" and exit with status 1.
package cli
