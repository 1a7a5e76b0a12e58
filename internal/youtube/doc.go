// Package youtube maps user-entered YouTube links to video ids and builds the
// derived thumbnail and playlist addresses. Everything here is pure: no network
// access happens in this package.
package youtube
