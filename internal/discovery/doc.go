// Package discovery locates a NOVA backend on the local network via
// mDNS service browsing.
package discovery
