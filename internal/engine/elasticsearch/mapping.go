package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for course documents.
const DefaultIndexName = "courses"

// buildIndexMapping returns the JSON mapping for the courses index. Titles are
// analyzed for keyword search and kept as a keyword subfield for prefix and
// substring lookups. ignore_above matches the title length limit enforced on
// ingestion, so every indexed title has a keyword value.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":              { "type": "keyword" },
      "title":           { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":     { "type": "text" },
      "category":        { "type": "keyword" },
      "type":            { "type": "keyword" },
      "gradeRange":      { "type": "keyword" },
      "minAge":          { "type": "integer" },
      "maxAge":          { "type": "integer" },
      "price":           { "type": "double" },
      "nextSessionDate": { "type": "date", "format": "yyyy-MM-dd" }
    }
  }
}`
}
