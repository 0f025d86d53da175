// Package crawler walks web pages from seed URLs and extracts their main
// content.
//
// # Components
//
//   - Spider: schedules fetches breadth-first with bounded concurrency,
//     depth and page count, and aggregates the results
//   - Processor: the per-page step, turning a parsed page into a Document
//     and the follow-up FetchTasks
//   - Frontier: extracts, resolves and filters the links of a page
//   - VisitedSet: the test-and-set record of URLs already claimed
//   - HTTPFetcher: the Fetcher used by the CLI, optionally through a SOCKS5
//     proxy (see NewHTTPClient)
//
// Fetch failures never abort a crawl; they are logged and reported in
// Result.Failures as *FetchError values.
//
// # Usage
//
//	client, _ := crawler.NewHTTPClient(60*time.Second, "")
//	spider := crawler.NewSpider(crawler.NewHTTPFetcher(client), crawler.WithMaxDepth(2))
//	result, err := spider.Crawl(ctx, []string{"https://example.com/"})
package crawler
