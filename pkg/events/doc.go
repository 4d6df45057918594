/*
Package events provides an in-memory event broker for catalog and
query-lifecycle notifications.

The events package implements a lightweight event bus for broadcasting
relation-catalog mutations and running-query lifecycle transitions to
interested subscribers. It supports buffered, non-blocking delivery,
enabling loose coupling between pkg/engine and anything watching for
catalog or query activity (a CLI `watch` verb, metrics, a future webhook
sink) without making those watchers a dependency of the hot path.

It is deliberately distinct from the synchronous trigger scripts a
relation registers via SetRelationTriggers: triggers run inline, inside
the script's transaction, and can fail the statement; events are
best-effort, asynchronous, and never block or fail a script.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Relation Events:                           │          │
	│  │    - relation.created                       │          │
	│  │    - relation.replaced                      │          │
	│  │    - relation.renamed                       │          │
	│  │    - relation.destroyed                     │          │
	│  │                                              │          │
	│  │  Query Events:                              │          │
	│  │    - query.started                          │          │
	│  │    - query.completed                        │          │
	│  │    - query.killed                           │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  CLI: stream catalog/query activity to a    │          │
	│  │       `watch` verb                          │          │
	│  │  Metrics: count events for dashboards       │          │
	│  │  Webhooks: send notifications (future)      │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Non-blocking publish (buffered channel)
  - Graceful shutdown via stop channel

Event:
  - ID: Unique event identifier
  - Type: Event type (relation.created, query.killed, etc.)
  - Timestamp: When event occurred
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context (relation name,
    query id, op)

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

# Event Flow

Publish Flow:
 1. Publisher calls broker.Publish(event)
 2. Event added to main event channel (non-blocking)
 3. Broadcast loop receives event
 4. Event sent to all subscriber channels
 5. Subscribers receive event asynchronously
 6. Full subscriber buffers skip (no blocking)

Subscribe Flow:
 1. Subscriber calls broker.Subscribe()
 2. New buffered channel created
 3. Channel registered in subscriber map
 4. Subscriber channel returned
 5. Subscriber receives events via channel
 6. Subscriber processes events in its own goroutine

Unsubscribe Flow:
 1. Subscriber calls broker.Unsubscribe(channel)
 2. Channel removed from subscriber map
 3. Channel closed
 4. Subscriber stops receiving events

# Usage

Creating and starting a broker:

	import "github.com/cuemby/strata/pkg/events"

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
		}
	}()

Publishing a catalog mutation:

	broker.Publish(&events.Event{
		Type:    events.EventRelationCreated,
		Message: "relation 'bob_friends' created",
		Metadata: map[string]string{
			"relation": "bob_friends",
		},
	})

Publishing a query lifecycle transition:

	broker.Publish(&events.Event{
		Type:    events.EventQueryKilled,
		Message: "query 42 killed by timeout",
		Metadata: map[string]string{
			"query_id": "42",
		},
	})
*/
package events
