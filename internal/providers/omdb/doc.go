// Package omdb adapts the OMDB HTTP API to the provider contract.
//
// OMDB is the ratings aggregator. Its detail payloads carry IMDb, Metascore,
// and Rotten Tomatoes scores as display strings ("8.6/10", "89%", "N/A"), so
// the adapter's main job is parsing those into validated ratings. A value of
// "N/A" drops the entry rather than recording a zero.
package omdb
