// Package stage defines the contract shared by every pipeline stage.
package stage
