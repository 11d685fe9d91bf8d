// Package textutil provides filename sanitization for library paths.
//
// Names are NFC-normalized first so decomposed accents survive as letters.
// Any run of characters other than letters, digits, underscore, dot, and
// hyphen becomes a single underscore.
package textutil
