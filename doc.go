// Package main provides the pkplib command. It serves the json api and the navigation
// pages of the PKP publishing applications through fiber, keeps their multilingual
// settings in sparse settings tables through gorm, indexes published submissions in
// the configured search engine and runs the scheduled tasks: DOI deposits, usage
// statistics loading and the monthly statistics report.
package main
