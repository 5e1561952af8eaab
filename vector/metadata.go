package vector

import "strconv"

// Map flattens metadata to the string form the store backends persist.
func (m Metadata) Map() map[string]string {
	out := map[string]string{
		"username":         m.Username,
		"primary_username": m.PrimaryUsername,
		"is_competitor":    strconv.FormatBool(m.IsCompetitor),
		"platform":         m.Platform,
		"engagement":       strconv.FormatUint(uint64(m.Engagement), 10),
		"timestamp":        m.Timestamp,
		"content_hash":     strconv.FormatUint(m.ContentHash, 10),
	}

	if m.Competitor != "" {
		out["competitor"] = m.Competitor
	}
	if m.SourceID != "" {
		out["source_id"] = m.SourceID
	}
	if m.Likes > 0 {
		out["likes"] = strconv.FormatUint(uint64(m.Likes), 10)
	}
	if m.Comments > 0 {
		out["comments"] = strconv.FormatUint(uint64(m.Comments), 10)
	}
	if m.Shares > 0 {
		out["shares"] = strconv.FormatUint(uint64(m.Shares), 10)
	}
	if m.Hashtags != "" {
		out["hashtags"] = m.Hashtags
	}

	return out
}

func MetadataFromMap(in map[string]string) Metadata {
	m := Metadata{
		Username:        in["username"],
		PrimaryUsername: in["primary_username"],
		Competitor:      in["competitor"],
		Platform:        in["platform"],
		Timestamp:       in["timestamp"],
		SourceID:        in["source_id"],
		Hashtags:        in["hashtags"],
	}

	m.IsCompetitor, _ = strconv.ParseBool(in["is_competitor"])

	if v, err := strconv.ParseUint(in["engagement"], 10, 32); err == nil {
		m.Engagement = uint(v)
	}
	if v, err := strconv.ParseUint(in["likes"], 10, 32); err == nil {
		m.Likes = uint(v)
	}
	if v, err := strconv.ParseUint(in["comments"], 10, 32); err == nil {
		m.Comments = uint(v)
	}
	if v, err := strconv.ParseUint(in["shares"], 10, 32); err == nil {
		m.Shares = uint(v)
	}
	if v, err := strconv.ParseUint(in["content_hash"], 10, 64); err == nil {
		m.ContentHash = v
	}

	return m
}
