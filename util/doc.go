// Package util holds small helpers shared by config and transport code.
package util
