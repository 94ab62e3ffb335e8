// Package search turns page text and queries into index terms.
//
// Documents and queries go through the same pipeline, so a query term
// matches a stored word exactly:
//
//  1. Unicode compatibility decomposition with combining marks removed
//     ("Café" becomes "Cafe")
//  2. split on everything that is not a letter or a digit
//  3. case folding
//  4. tokens longer than MaxTokenLength runes are dropped
//  5. English stopwords are dropped
//  6. Snowball English stemming ("running" becomes "run")
package search
