package main

import "policedir/internal/app/server"

func main() {
	server.Run()
}
