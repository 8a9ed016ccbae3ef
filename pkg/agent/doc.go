// Package agent runs one model turn with tool loops and provider failover.
//
// Invariants:
// - A turn is emitted as an ordered, single-consumption event stream.
// - Tool calls route through the configured ToolExecutor only.
// - Provider failover happens before the first event is emitted; once a
//   tool has run, a provider error fails the stream instead of replaying
//   tool side effects against another provider.
//
// Usage:
//
//	rt, _ := agent.NewRuntime(agent.Config{...})
//	stream := rt.Execute(ctx, agent.ExecuteParams{UserID: "1", UserMessage: "hello"})
//	for ev, ok := stream.Next(); ok; ev, ok = stream.Next() {
//		_ = ev
//	}
package agent
