// Package symbols provides the symbol directory used to validate and search
// subscription input.
//
// The directory is a JSON array of {"value", "text"} entries (the
// symbol_list.json format), loaded from disk or fetched over HTTP. Transform
// converts a FinnHub symbol listing into that format.
package symbols
