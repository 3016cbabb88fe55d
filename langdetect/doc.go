/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package langdetect provides a cheap keyword-based detection of the programming language of a code snippet.
// The detected language is used to build prompts and is mixed into response cache fingerprints.
package langdetect
