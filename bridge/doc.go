/*
Package bridge provides a local callback bridge, which lets an external process synchronously invoke commands that run inside the host process.

The bridge listens on a Unix socket at {temp dir}/{name}.sock. Clients connect and exchange UTF-8 text messages, each terminated by CR LF.

A request is a JSON object mapping command names to argument payloads:

	{"commitCallback": {"author_name": "..."}}\r\n

A payload that is an array is spread as positional arguments, any other payload is passed as a single argument.
The commands of one request run concurrently, and the response is written once all of them have finished:

	{"a": 2, "b": 4}\r\n

A response carries exactly the keys of the request, with each value replaced by that command's result.
Commands without a registered handler, and handlers that return nothing, produce null.
If the request named exactly one command, the response is that command's result on its own, not wrapped in an object.

A message that is not a JSON object is answered with an error envelope, and the error is also reported to the host:

	{"err":{"message":"'notjson' is invalid"}}\r\n

A handler that fails has its slot in the response replaced with the same kind of envelope, and the rest of the response is unaffected.

Within one connection, messages are handled strictly in order. Different connections are handled independently.
*/
package bridge
