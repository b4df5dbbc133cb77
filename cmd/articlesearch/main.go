package main

import "articlesearch-backend/cmd/articlesearch/cmd"

func main() {
	cmd.Execute()
}
