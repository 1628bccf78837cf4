// Package llm provides text-completion clients for the hosted language models
// used to read invoices. It supports OpenAI and Anthropic over plain HTTP, with
// optional rate limiting and response caching layered on top.
package llm
