// Package router resolves request paths against the descriptor's ordered handler list.
//
// Handlers are compiled once. static_dir urls are literal path prefixes; static_files and
// script urls are regular expressions matched against the whole path. The first handler
// that matches wins.
//
// For static handlers the match carries the file path relative to the application root:
// static_dir joins the directory with the remainder of the path, static_files expands
// back-references (\1, \2, ...) from the url's capture groups.
package router
