// Package notify sends scheduled coaching nudges: a morning check for a
// missing sleep log and an evening check on the calorie gap. Reminder
// failures are logged and never fatal.
package notify
