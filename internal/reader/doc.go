// Package reader turns a repository on disk into file records.
//
// ReadRepo walks a directory, skipping VCS and dependency directories,
// hidden entries, oversized files and anything that is not UTF-8 text, and
// returns the remaining files with a supported language sorted by path.
// LoadRecords and SaveRecords read and write the same records as a JSON
// array of {"path", "content"} objects, so a pre-read repository can be
// chunked without touching the filesystem again.
package reader
