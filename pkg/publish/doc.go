/*
Package publish coordinates updates to named, stored flows.

A Manager serializes publications of the same name, in process with
reference-counted mutexes and across replicas with an optional distributed
lock, so the diff it reports always compares against the version it replaced.
*/
package publish
