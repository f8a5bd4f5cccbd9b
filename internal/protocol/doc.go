// Package protocol defines the JSON wire types exchanged with the NOVA
// inference backend: the base64 audio envelope used by the recognise and
// listen endpoints, the text-processing request, and their responses.
package protocol
