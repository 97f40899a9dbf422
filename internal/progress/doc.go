// Package progress fans pipeline events out to live subscribers.
//
// Topics are keyed by media item id or owning user id (see ItemTopic and
// UserTopic). Publish never blocks: each subscriber decides in Deliver whether
// it can accept an event, and one that cannot is dropped from every topic.
// Subscriptions are in-memory only; clients rebuild them after reconnecting.
package progress
