/*
Package runtime hosts the dispatch Service.

The Service owns a Watermill router with a single handler. For every
inbound message it:

 1. decodes the message as a CloudEvent (messages that are not events are
    permanent failures)
 2. POSTs the event to the sink in HTTP binary mode, propagating the trace
    context
 3. passes the buffered sink response to a reply.Handler and awaits it

Sink responses with a 5xx, 408 or 429 status are retried by the retry
middleware. Other failures are permanent and go to the poison queue when one
is configured.

# Sub-packages

  - async/: completion futures returned by the reply handler
  - cloudevents/: event model plus HTTP and Watermill codecs
  - config/: environment configuration with validation
  - errors/: sentinel errors
  - logging/: logger interface and Watermill adapters
  - metrics/: Prometheus binding tied to the publish client lifetime
  - reply/: sink response translation
  - tracing/: span annotation with event attributes
  - transport/: broker connection with retry
*/
package runtime
