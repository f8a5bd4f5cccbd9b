// Package ui renders assistant activity on the terminal.
package ui
