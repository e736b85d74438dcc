// The main package for the naver-blog-scraper executable.
package main

import (
	"github.com/junhyukpark/naver-blog-scraper/cmd"
)

func main() {
	cmd.Execute()
}
