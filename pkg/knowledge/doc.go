// Package knowledge turns brand material into the guidance a layout analysis
// reads.
//
// A knowledge node in a project holds brand guideline documents and style
// reference images. This package extracts text from the documents
// ([PDFExtractor]), distills it into short imperative rules ([Distill]) and
// shrinks reference images to a size the model accepts ([OptimizeReference]).
// The result is a [design.KnowledgeContext] that the reconciliation store
// keeps per producer.
package knowledge
