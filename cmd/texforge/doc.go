// Command texforge converts vendor texture sources into a standardized asset
// library.
//
// Subcommands:
//
//	process   run the pipeline over a rule document
//	check     run preflight checks and list leftover engine temp directories
//	history   show recent runs and their asset outcomes
//	config    create or validate the configuration file
package main
