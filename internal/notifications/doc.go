// Package notifications delivers aggregation lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Per-group toggles
// (queue, completion, review, errors) let operators mute event classes without
// removing the topic. All workflow code depends only on the Service interface,
// so alternative transports slot in behind it.
package notifications
