// Command shelfd runs the shelf registry as a long-lived local service.
//
// Front-ends that talk to shelfd (shelf --remote, a GUI) share one in-memory
// registry instead of racing on the record file. The API listens on
// 127.0.0.1:7420 by default; see SHELF_HOST and SHELF_PORT.
package main
