// Package embedder generates vector embeddings for chunks.
//
// Two providers are available:
//
//   - local: offline feature hashing of identifiers into 384 dimensions.
//     Deterministic and dependency free, suitable for tests and air-gapped use.
//   - openai: the OpenAI embeddings API, or any compatible endpoint set with
//     OPENAI_BASE_URL.
//
// # Provider Selection
//
//  1. If KTC_EMBEDDING_PROVIDER is set, use it
//  2. Else if OPENAI_API_KEY is set, use openai
//  3. Else use local
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts,
//	})
//
// Embeddings are returned in input order. Results are cached in an LRU keyed
// by model and SHA-256 of the text, so only uncached texts reach the
// provider. Transient API failures are retried with exponential backoff;
// 4xx responses other than 429 fail immediately with ErrProviderFailed.
package embedder
