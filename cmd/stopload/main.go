// Command stopload loads GTFS stops into PostgreSQL and serves lookups
// over them.
package main

func main() {
	Execute()
}
