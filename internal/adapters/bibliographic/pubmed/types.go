package pubmed

import "encoding/xml"

// eSearchResult is the response shape of PubMed's ESearch endpoint: a list
// of PMIDs matching the query, in relevance order.
type eSearchResult struct {
	XMLName    xml.Name `xml:"eSearchResult"`
	Count      int      `xml:"Count"`
	IDList     []string `xml:"IdList>Id"`
	QueryTrans string   `xml:"QueryTranslation"`
}

// eFetchResult is the response shape of PubMed's EFetch endpoint: full
// article records for a given set of PMIDs.
type eFetchResult struct {
	XMLName  xml.Name          `xml:"PubmedArticleSet"`
	Articles []pubmedArticle   `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation medlineCitation `xml:"MedlineCitation"`
}

type medlineCitation struct {
	PMID    string  `xml:"PMID"`
	Article article `xml:"Article"`
}

type article struct {
	ArticleTitle string       `xml:"ArticleTitle"`
	Abstract     abstractText `xml:"Abstract"`
	Journal      journal      `xml:"Journal"`
	AuthorList   []author     `xml:"AuthorList>Author"`
	ELocationIDs []eLocation  `xml:"ELocationID"`
	ArticleDate  *articleDate `xml:"ArticleDate"`
}

type abstractText struct {
	Text []string `xml:"AbstractText"`
}

type journal struct {
	Title   string  `xml:"Title"`
	PubDate pubDate `xml:"JournalIssue>PubDate"`
}

type pubDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type articleDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type author struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type eLocation struct {
	EIdType string `xml:"EIdType,attr"`
	Value   string `xml:",chardata"`
}
