// Package testutil provides helpers shared by the package tests: component
// lifecycle bound to a test, and fake TEI and Whisper sidecars served with
// net/http/httptest.
package testutil
