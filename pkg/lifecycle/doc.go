/*
Package lifecycle implements the deployment state machine.

The Controller owns the single authoritative ServiceState and moves it
only through defined transitions:

	stopped --Deploy--> building --ok--> starting --healthy--> healthy
	   |                   |                |
	   |  (gate fatal)     | (build fails)  | (retries exhausted)
	   v                   v                v
	resource-check-failed failed          unhealthy

Deploy is the one compound operation: admission gate, artifact build,
descriptor render, runtime apply (replacing any previous instance), and
the bounded health wait. It is not transactional: a failure leaves
the state of the failed step, nothing is rolled back,
and the operator recovers with Stop, Restart, or another Deploy. Stop
is idempotent; Restart is Stop followed by Deploy with no atomicity
across the pair, so a crash mid-restart leaves a state that is safe to
re-invoke.

Collaborators (gate, builder, runtime, health monitor, backups,
journal) enter through narrow interfaces, which is also what makes the
state machine testable with fakes.
*/
package lifecycle
