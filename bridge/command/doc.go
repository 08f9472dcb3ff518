/*
Package command provides the command registry that a bridge dispatches requests against.

A request names one or more commands, each with an argument payload. A payload that is a JSON array is
treated as an ordered list of positional arguments, and any other payload is treated as a single argument.
That shape is resolved once, into an Args value, before the handler runs. Handlers that need to tell a
single array-valued argument apart from positional arguments can inspect Args.Kind.

Registries are immutable after construction, so they can be shared by any number of concurrent dispatches
without locking.
*/
package command
