// Package pexels searches the Pexels stock photo and video API.
package pexels
