// Package factory loads the agent configuration and builds the dispatcher,
// the model client and the tool transport from it.
package factory
