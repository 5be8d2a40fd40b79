// Package testsupport holds fixtures shared by package tests: isolated
// configs, synthesized signals, WAV encoding, and a recorder that stands in
// for external tools.
package testsupport
