// Package textclean turns rendered HTML markup into plain text suitable
// for retrieval corpora.
//
// The extractor is a fixed regex pipeline: script, style, and comment
// blocks vanish with their content, remaining tags become single spaces,
// entities are decoded, and whitespace is collapsed. It never fails on
// malformed markup; whatever prose the page holds comes out.
//
// Design decision: We use regular expressions rather than an HTML parser
// because:
// 1. Rendered snapshots are frequently malformed and a textual pass
//    degrades gracefully where a DOM pass would mis-nest content
// 2. The output feeds embedding models, which tolerate rough edges but
//    benefit from dependable whitespace normalization
// 3. The pipeline is trivially idempotent and auditable step by step
package textclean
