package queue_test

import (
	"context"
	"fmt"
	"time"

	"github.com/relayq/relayq/queue"
	"github.com/relayq/relayq/resilience"
)

// Example demonstrates priority scheduling with a dependency.
func Example() {
	q, err := queue.New(queue.Config{Concurrency: 2})
	if err != nil {
		fmt.Println("new:", err)
		return
	}
	defer q.Close()

	fetch, err := q.Add(func(ctx context.Context) (any, error) {
		return "payload", nil
	}, queue.AddOptions{ID: "fetch", Priority: 5})
	if err != nil {
		fmt.Println("add:", err)
		return
	}

	process, err := q.Add(func(ctx context.Context) (any, error) {
		payload, _ := fetch.Wait(ctx)
		return fmt.Sprintf("processed %v", payload), nil
	}, queue.AddOptions{ID: "process", Dependencies: []string{"fetch"}})
	if err != nil {
		fmt.Println("add:", err)
		return
	}

	result, err := process.Wait(context.Background())
	if err != nil {
		fmt.Println("wait:", err)
		return
	}
	fmt.Println(result)
	// Output: processed payload
}

// ExampleQueue_Add_policies shows guarding a task body with retry and a
// per-attempt timeout.
func ExampleQueue_Add_policies() {
	q, err := queue.New(queue.Config{})
	if err != nil {
		fmt.Println("new:", err)
		return
	}
	defer q.Close()

	policies := resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxRetries: 2,
			Backoff:    resilience.Backoff{InitialDelay: 10 * time.Millisecond},
		})),
		resilience.WithTimeout(time.Second),
	)

	attempts := 0
	h, err := q.Add(func(ctx context.Context) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, fmt.Errorf("transient failure")
		}
		return "ok", nil
	}, queue.AddOptions{ID: "flaky", Policies: policies})
	if err != nil {
		fmt.Println("add:", err)
		return
	}

	result, _ := h.Wait(context.Background())
	fmt.Println(result, "after", h.Attempts(), "attempts")
	// Output: ok after 2 attempts
}
