// Package preflight provides readiness checks for the filesystem paths that
// texforge depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before the first source. A failed
//     check aborts the run as a setup error.
//   - The CLI "texforge check" command renders every result as a table.
package preflight
