package delivery_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/dispatchops/delivery"
	"github.com/jonwraymond/dispatchops/provider"
)

func ExampleOrchestrator_Submit() {
	always := func() float64 { return 0 }
	reg, _ := provider.NewRegistry(
		provider.NewSimulated(provider.SimulatedConfig{Name: "primary", Reliability: 1, Rand: always}),
		provider.NewSimulated(provider.SimulatedConfig{Name: "secondary", Reliability: 1, Rand: always}),
	)

	orch, err := delivery.New(reg, delivery.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		return
	}

	msg := provider.Message{To: "user@example.com", Subject: "Welcome", Body: "Hello!"}

	res, _ := orch.Submit(context.Background(), msg)
	fmt.Println(res.Record.State, res.Receipt.ProviderID)

	res, _ = orch.Submit(context.Background(), msg)
	fmt.Println("duplicate:", res.Duplicate)
	// Output:
	// sent primary
	// duplicate: true
}
