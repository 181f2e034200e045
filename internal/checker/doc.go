// Package checker defines the core types and collaborator interfaces shared by
// the fetch-and-classify pipeline: identifiers become tasks, tasks become fetch
// attempts, and every task ends in exactly one ResultRecord.
package checker
