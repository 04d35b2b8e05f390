/*
Package resilience implements a circuit breaker guarding calls to
collaborators outside this process. internal/model/remote wraps every HTTP
call to its sibling inference worker with one, so a worker that starts
timing out or erroring trips the breaker and fails fast for a cooldown
window instead of piling up retries against something that is still down.

The breaker has three states:

  - Closed: requests pass through; consecutive failures are counted.
  - Open: requests are rejected immediately until Timeout elapses.
  - Half-Open: a bounded number of probe requests are let through; enough
    consecutive successes close the breaker again, any failure reopens it.
*/
package resilience
