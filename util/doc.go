// Package util holds small generic helpers shared by reqflow packages.
package util
