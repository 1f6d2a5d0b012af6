// Package sdk provides an embedded Go client for the retriever engine.
// It wires the full retrieval stack in-process: a resilient model
// provider client, a tiered embedding cache and a hybrid in-memory
// index, without running the HTTP server.
//
//	client, err := sdk.New(ctx,
//	    sdk.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	    sdk.WithRedis("localhost:6379", ""),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, contractText)
//	results, _ := client.Search(ctx, "interest rate", sdk.SearchOptions{})
//
//	job, _ := client.Analyze(ctx)
//	job, _ = client.WaitForAnalysis(ctx, job.ID, time.Minute)
package sdk
