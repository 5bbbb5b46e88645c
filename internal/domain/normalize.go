package domain

import "strings"

// As tabelas externas guardam status e canal em vocabulário próprio
// (rótulos em português, abreviações). Toda leitura e escrita passa por
// estas funções de normalização de mão dupla. Valores desconhecidos caem
// no primeiro valor do enum (StatusNew / SourceWebsite) em vez de falhar.

// statusSynonyms aceita os tokens canônicos em inglês e um conjunto fixo
// de sinônimos em português, sem distinção de maiúsculas.
var statusSynonyms = map[string]LeadStatus{
	"new":         StatusNew,
	"novo":        StatusNew,
	"nova":        StatusNew,
	"contacted":   StatusContacted,
	"contatado":   StatusContacted,
	"contactado":  StatusContacted,
	"em contato":  StatusContacted,
	"qualified":   StatusQualified,
	"qualificado": StatusQualified,
	"lost":        StatusLost,
	"perdido":     StatusLost,
	"perdida":     StatusLost,
}

// StatusFromExternal converte o status gravado na tabela externa para o
// enum canônico. Vazio ou não reconhecido vira StatusNew.
func StatusFromExternal(external string) LeadStatus {
	if s, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(external))]; ok {
		return s
	}
	return StatusNew
}

// ExternalFromStatus converte o enum canônico para o token gravado na
// tabela externa (o próprio token canônico, minúsculo).
func ExternalFromStatus(status LeadStatus) string {
	if !status.Valid() {
		return string(StatusNew)
	}
	return string(status)
}

// Famílias de palavras-chave para inferir a origem a partir do texto livre
// do canal. Heurística de melhor esforço por substring, não uma bijeção.
var (
	socialKeywords   = []string{"insta", "facebook", "face", "whats", "tiktok", "telegram", "linkedin", "social", "rede"}
	referralKeywords = []string{"indica", "referral", "amigo", "boca"}
	campaignKeywords = []string{"campanha", "campaign", "ads", "anuncio", "anúncio", "google", "trafego", "tráfego"}
)

// SourceFromChannel infere a origem canônica a partir do canal em texto
// livre. Qualquer coisa fora das famílias conhecidas vira SourceWebsite.
func SourceFromChannel(channel string) LeadSource {
	c := strings.ToLower(strings.TrimSpace(channel))
	for _, kw := range socialKeywords {
		if strings.Contains(c, kw) {
			return SourceSocial
		}
	}
	for _, kw := range referralKeywords {
		if strings.Contains(c, kw) {
			return SourceReferral
		}
	}
	for _, kw := range campaignKeywords {
		if strings.Contains(c, kw) {
			return SourceCampaign
		}
	}
	return SourceWebsite
}

// channelLabels: um único rótulo fixo por origem. O caminho inverso é
// propositalmente com perda: o texto original do canal não é recuperável
// depois que a origem foi normalizada.
var channelLabels = map[LeadSource]string{
	SourceWebsite:  "Site",
	SourceSocial:   "Redes Sociais",
	SourceReferral: "Indicação",
	SourceCampaign: "Campanha",
}

// ChannelFromSource devolve o rótulo externo fixo da origem canônica.
func ChannelFromSource(source LeadSource) string {
	if label, ok := channelLabels[source]; ok {
		return label
	}
	return channelLabels[SourceWebsite]
}
