// Package pixabay searches the Pixabay stock image and video API.
package pixabay
