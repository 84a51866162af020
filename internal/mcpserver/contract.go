package mcpserver

// TextFormatContract describes the JSON payloads the catalog accepts when an
// LLM consumer creates texts, instances or persons.
const TextFormatContract = `# OpenPecha Catalog Payload Contract

All payloads are JSON objects. Localized strings are objects keyed by
language code (` + "`bo`" + ` for Tibetan, ` + "`en`" + ` for English, ` + "`sa`" + ` for Sanskrit, ...).

## Text

` + "```" + `json
{
  "type": "translation",
  "title": {"en": "The Way of the Bodhisattva"},
  "language": "en",
  "parent": "<root text id>",
  "contributions": [{"person_id": "<person id>", "role": "translator"}],
  "date": "1997",
  "bdrc": "W1KG12345",
  "wiki": "https://en.wikipedia.org/wiki/Bodhicaryavatara",
  "alt_titles": [{"en": "Bodhicaryavatara"}]
}
` + "```" + `

Rules:

1. ` + "`type`" + `, ` + "`title`" + ` and ` + "`language`" + ` are required.
2. ` + "`type`" + ` is one of root, translation, commentary.
3. The gateway only checks that ` + "`title`" + ` is a non-empty object. Give an
   English or a Tibetan value anyway: listings show the Tibetan title, then
   the English one.
4. Every contribution carries a ` + "`person_id`" + ` and a ` + "`role`" + `; role is one of
   author, translator, reviser, editor, scholar.
5. A translation or commentary without a known parent uses ` + "`\"parent\": \"N/A\"`" + `.

## Instance

` + "```" + `json
{
  "metadata": {"type": "diplomatic", "copyright": "public", "bdrc": "W22084"},
  "content": "<full text>",
  "annotations": {
    "segmentation": [{"span": {"start": 0, "end": 42}, "index": 0}]
  }
}
` + "```" + `

Rules:

1. ` + "`content`" + ` is required and must not be blank.
2. ` + "`metadata.type`" + ` is one of diplomatic, critical, collated; diplomatic
   instances need ` + "`metadata.bdrc`" + `.
3. Spans are half-open code point ranges: 0 <= start < end <= length of content.

## Person

` + "```" + `json
{"name": {"en": "Shantideva", "bo": "ཞི་བ་ལྷ"}, "alt_names": [], "bdrc": "", "wiki": ""}
` + "```" + `

Rules:

1. ` + "`name`" + ` needs at least an English or a Tibetan value.
2. Missing ` + "`alt_names`" + `, ` + "`bdrc`" + ` and ` + "`wiki`" + ` default to empty values.
`
