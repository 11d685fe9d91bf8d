// Package testsupport provides config builders and image fixtures shared by
// package tests.
package testsupport
