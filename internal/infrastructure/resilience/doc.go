/*
Package resilience provides the circuit breaker used by the remote client.

# Usage

	breaker := resilience.New("shelfd", resilience.Settings{
		FailureThreshold: 3,
		Cooldown:         10 * time.Second,
		IsFailure:        isTransportError,
	})

	apps, err := resilience.Call(breaker, func() ([]types.App, error) {
		return fetch(ctx)
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[probes succeed]-> Closed
	                                                        |
	                                                    [failure]
	                                                        v
	                                                      Open
*/
package resilience
