// Package extract turns PDF bytes into ordered text chunks.
//
// Pages are read with the langchaingo PDF loader and each page is split with
// a recursive character splitter. Chunk indices are global to the document
// so they stay stable across re-ingestion of the same bytes.
package extract
