/*
Package artifact builds the deployable image.

The Builder invokes the container engine's build command with a
build-time resource ceiling (memory cap plus CPU quota) that is
deliberately distinct from the runtime ceiling, so building on a
constrained host never starves whatever is already running. A missing
build descriptor and a non-zero build exit are both fatal, typed
failures; a broken artifact is never deployed. Building does not start
the service.
*/
package artifact
