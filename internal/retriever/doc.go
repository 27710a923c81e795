// Package retriever finds the stored chunks relevant to a question and
// assembles them into prompt context.
//
// Three modes are available:
//   - Hybrid (default): vector similarity and BM25 full-text search run
//     concurrently and are merged with Reciprocal Rank Fusion
//   - Vector: embedding similarity only
//   - Keyword: FTS5 BM25 only, works without an embedder
//
// # Basic Usage
//
//	r := retriever.New(store, emb)
//
//	resp, err := r.Retrieve(ctx, retriever.Request{
//	    RepoID: "demo",
//	    Query:  "where is the config file parsed?",
//	    TopK:   5,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(retriever.BuildContext(resp.Chunks()))
//
// Responses can be cached in an in-memory LRU by setting Request.UseCache.
// Call InvalidateCache after re-ingesting the repository.
package retriever
