// Package logger records the commands the shell ran and summarizes them.
package logger
