// Package reply turns sink HTTP responses into broker publishes.
//
// A Handler decodes every response it is given. Responses without a body are
// discarded, responses carrying a CloudEvent are republished on the
// handler's topic and anything else fails. The handler owns its publisher
// and metrics binding and closes both together.
package reply
