// Package ingest turns a folder of course documents into index entries.
//
// A scan walks the documents root, fingerprints each supported file and
// re-ingests only files that are new or changed. Ingesting a file extracts
// its text, splits it into overlapping word windows and replaces the
// file's previous chunks in the index. Directory names below the root
// become the file's course, chapter and topics:
//
//	documents/
//	  Computer_Science/          course "Computer Science"
//	    Week_3/                  chapter "Week 3"
//	      recursion.pdf          title "recursion"
//
// The index and the processed-file registry are persisted together once
// per scan, index first.
package ingest
