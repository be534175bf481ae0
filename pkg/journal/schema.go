package journal

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so
// multiple Easel instances can safely coexist on a single Redis server.
//
// Key pattern: easel:{instance_name}:{entity}:{uuid}
// Channel pattern: easel:{instance_name}:plan:{plan_id}:events

// PlanEventsKey returns the Redis key for a plan's decision log list.
// Pattern: easel:{instance_name}:plan:{plan_id}:log
func PlanEventsKey(instanceName, planID string) string {
	return fmt.Sprintf("easel:%s:plan:%s:log", instanceName, planID)
}

// PlanEventsChannel returns the Pub/Sub channel name for a plan's live
// event stream.
// Pattern: easel:{instance_name}:plan:{plan_id}:events
func PlanEventsChannel(instanceName, planID string) string {
	return fmt.Sprintf("easel:%s:plan:%s:events", instanceName, planID)
}

// PlanIndexKey returns the Redis key for the set of known plan IDs.
// Pattern: easel:{instance_name}:plans
func PlanIndexKey(instanceName string) string {
	return fmt.Sprintf("easel:%s:plans", instanceName)
}
