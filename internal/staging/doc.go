// Package staging allocates and reclaims engine temp directories under the
// configured workspace.
package staging
