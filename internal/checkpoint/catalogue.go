package checkpoint

import (
	"regexp"

	"github.com/ericksa/keiyakucheck/internal/contracttype"
	"github.com/ericksa/keiyakucheck/internal/laws"
)

func rx(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

const (
	numeral  = `(?P<n>[0-9〇一二三四五六七八九十百千]+)`
	timeUnit = `(?P<unit>日|週間|か月|ヶ月|カ月|ヵ月|箇月|ケ月|年)`
	after    = `[^。]{0,12}?(後|から|より)(起算して)?[、,\s]*`
)

var (
	paymentTerm = regexp.MustCompile(
		`(納品|納入|受領|検収|引渡し|引き渡し|提供|請求書)` + after + numeral + `\s*` + timeUnit)
	nonCompeteTerm = regexp.MustCompile(
		`(契約の?終了後|契約期間?満了後|終了後|満了後|(終了|満了)(の|した)日から)[、,\s]*` + numeral + `\s*` + timeUnit)
	warrantyTerm = regexp.MustCompile(
		`(検収|納品|納入|引渡し|引き渡し|受領|知った|発見した)` + after + numeral + `\s*` + timeUnit)
)

func strictOnly(e Env) bool         { return e.Laws.FreelanceProtectionStrict }
func copyrightOnly(e Env) bool      { return e.Laws.CopyrightLawRelevant }
func bestEffortsOnly(e Env) bool    { return e.Type == contracttype.BestEfforts }
func continuousContract(e Env) bool { return laws.MidTermNoticeRequired(e.Context) }

var catalogue = []Checkpoint{
	// Required: statutory obligations.
	{
		ID:       "CP001",
		Name:     "支払期日（60日ルール）",
		Category: Required,
		Kind:     Threshold,
		Limits: &Limits{
			Scope: regexp.MustCompile(`支払|払(い|う)|振り?込|支給`),
			Term:  paymentTerm,
			Fixed: []FixedTerm{
				{Pattern: regexp.MustCompile(`翌々月(末|[0-9]+日)`), Days: 75},
				{Pattern: regexp.MustCompile(`翌月(末|[0-9]+日)`), Days: 30},
				{Pattern: regexp.MustCompile(`当月末`), Days: 0},
			},
			Critical: 60,
			Missing:  Critical,
			NoTerm:   Critical,
		},
		Title:       "支払期日が給付の受領から60日を超えているか、定められていません",
		Explanation: "報酬の支払期日は、成果物の受領（役務の提供）日から起算して60日以内の、できる限り短い期間内で定める必要があります。",
		SourceRule:  "フリーランス保護法第4条（報酬の支払期日）",
		Fix:         "甲は、乙から成果物の納品を受けた日から起算して60日以内に、乙の指定する銀行口座に振り込む方法により報酬を支払う。",
	},
	{
		ID:       "CP002",
		Name:     "報酬額の明示",
		Category: Required,
		Kind:     Presence,
		Severity: Critical,
		Patterns: rx(
			`(報酬|委託料|対価|代金)[^。]{0,30}?[0-9〇一二三四五六七八九十百千万,]+\s*円`,
			`(時間単価|単価|月額)[^。]{0,10}?[0-9〇一二三四五六七八九十百千万,]+\s*円`,
		),
		Title:       "報酬の額が明示されていません",
		Explanation: "報酬の額は取引条件として書面等で明示しなければなりません。算定方法のみを定める場合も、具体的に計算できる内容が必要です。",
		SourceRule:  "フリーランス保護法第3条（取引条件の明示）",
		Fix:         "本業務の報酬は、金〇〇円（消費税別）とする。",
	},
	{
		ID:          "CP003",
		Name:        "業務内容の明示",
		Category:    Required,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`業務内容|委託業務|本業務|業務の(内容|範囲)|仕様書|成果物の内容`),
		Title:       "委託する業務の内容が特定されていません",
		Explanation: "給付の内容が曖昧だと、追加作業や成果物の受領拒否をめぐる争いの原因になります。",
		SourceRule:  "フリーランス保護法第3条（取引条件の明示）",
		Fix:         "甲は乙に対し、別紙仕様書に定める業務（以下「本業務」という。）を委託する。",
	},
	{
		ID:       "CP004",
		Name:     "報酬の減額",
		Category: Required,
		Kind:     Risk,
		Severity: Critical,
		Patterns: rx(
			`(報酬|委託料|代金|対価)[^。]{0,30}(減額|減ずる|差し引く)`,
			`(減額|値引き)(する|できる|を求める)`,
		),
		Safe:        rx(`減額(しない|することはできない|してはならない)`),
		Title:       "発注後に報酬を減額できる条項があります",
		Explanation: "乙の責めに帰すべき事由がないのに、発注時に定めた報酬を後から減額することは禁止されています。",
		SourceRule:  "フリーランス保護法第5条第1項第2号（報酬の減額の禁止）",
		Fix:         "甲は、乙の責めに帰すべき事由がある場合を除き、報酬を減額しない。",
	},
	{
		ID:       "CP005",
		Name:     "受領拒否・返品",
		Category: Required,
		Kind:     Risk,
		Severity: Critical,
		Patterns: rx(
			`(受領|受け取り|受取り|引取り)を拒(む|否|絶)`,
			`返品(する|できる|することができる)`,
		),
		Safe:        rx(`受領を拒(否し|ま)ない`, `返品(しない|することはできない)`),
		Title:       "成果物の受領拒否や返品を認める条項があります",
		Explanation: "乙の責めに帰すべき事由がないのに、給付の受領を拒むことや受領後に返品することは禁止されています。",
		SourceRule:  "フリーランス保護法第5条第1項第1号・第3号",
		Fix:         "甲は、乙の責めに帰すべき事由がある場合を除き、成果物の受領を拒まず、受領後に返品しない。",
	},
	{
		ID:       "CP006",
		Name:     "無償の役務提供要請",
		Category: Required,
		Kind:     Risk,
		Severity: Critical,
		Patterns: rx(
			`無償で[^。]{0,15}(追加業務|追加作業|協力|役務)`,
			`追加の?(業務|作業)[^。]{0,10}無償`,
			`無償の(役務|協力|作業)`,
		),
		Title:       "追加の業務を無償で求める条項があります",
		Explanation: "報酬に含まれない役務や協力を無償で提供させることは、不当な経済上の利益の提供要請として禁止されています。",
		SourceRule:  "フリーランス保護法第5条第2項第1号（不当な経済上の利益の提供要請）",
		Fix:         "当初の業務範囲を超える作業が生じたときは、甲乙協議のうえ追加報酬を定める。",
	},
	{
		ID:       "CP007",
		Name:     "不当なやり直し",
		Category: Required,
		Kind:     Risk,
		Severity: Critical,
		Patterns: rx(
			`(責めに帰(す|さ)べき事由(が|の)?(ない|なく)|理由の(如何|いかん)を問わず|甲の(都合|判断)により)[^。]{0,20}(やり直し|作り直し|再作業)`,
			`無償で(やり直し|作り直し|再作業)`,
		),
		Title:       "乙に責任のないやり直しを無償で求める条項があります",
		Explanation: "乙の責めに帰すべき事由がないのに、給付の受領後にやり直しをさせることは禁止されています。",
		SourceRule:  "フリーランス保護法第5条第2項第2号（不当な給付内容の変更・やり直し）",
		Fix:         "甲の都合によるやり直しを求める場合、甲は乙に生じた費用を負担する。",
	},
	{
		ID:       "CP008",
		Name:     "著作権の移転条件",
		Category: Required,
		Kind:     Risk,
		Severity: Warning,
		Absent:   Warning,
		Applies:  copyrightOnly,
		Patterns: rx(
			`著作権[^。]{0,60}(納品|引渡し|引き渡し|作成|発生)(と同時に|した時点で|時に)[^。]{0,20}(移転|帰属)`,
			`著作権[^。]{0,40}(無償で|対価なく)[^。]{0,20}(移転|譲渡)`,
		),
		Safe: rx(
			`支払い?[^。]{0,15}(完了|済)[^。]{0,20}(移転|帰属)`,
			`著作権[^。]{0,30}乙に(留保|帰属)`,
		),
		Title:       "著作権が報酬の支払前に移転するか、移転条件が定められていません",
		Explanation: "報酬の支払を受ける前に著作権が移転すると、不払いの場合に成果物の利用を止められません。移転時期を支払完了時とするのが安全です。",
		SourceRule:  "著作権法第61条（著作権の譲渡）",
		Fix:         "成果物の著作権は、甲から乙への報酬の支払が完了した時に、乙から甲に移転する。",
	},
	{
		ID:       "CP009",
		Name:     "損害賠償の上限",
		Category: Required,
		Kind:     Risk,
		Severity: Critical,
		Absent:   Warning,
		Patterns: rx(`(一切の|すべての|全ての|あらゆる)損害[^。]{0,10}賠償`),
		// Only a cap on the compensation amount counts; 遅延損害金 rates and
		// claim periods do not.
		Safe: rx(
			`(賠償額|賠償の額|賠償する額|賠償金の額)[^。]{0,40}(を上限|を限度|を超えない|上限とする|限度とする)`,
			`賠償(責任|義務)[^。]{0,30}(報酬|委託料|代金|対価|総額|金額|円)[^。]{0,10}(を上限|を限度|を超えない|上限とする|限度とする)`,
		),
		Title:       "損害賠償責任に上限がありません",
		Explanation: "賠償額の上限がないと、報酬をはるかに超える賠償を負うおそれがあります。委託料の総額などを上限とするよう求めてください。",
		SourceRule:  "民法第415条・第416条（債務不履行による損害賠償）",
		Fix:         "乙が甲に対して負う損害賠償の額は、本契約に基づき乙が受領した報酬の総額を上限とする。",
	},
	{
		ID:       "CP010",
		Name:     "偽装請負の兆候",
		Category: Required,
		Kind:     Risk,
		Severity: Critical,
		Patterns: rx(
			`(始業|終業)(時刻|時間)`,
			`(勤務|作業|就業)時間[^。]{0,10}(指定|定め|従)`,
			`甲の指揮命令(に従|の下|を受け)`,
			`出勤|タイムカード|勤怠`,
		),
		Safe:        rx(`指揮命令を(行わない|受けない|しない)`, `自らの裁量`),
		Title:       "雇用に近い指揮命令関係をうかがわせる条項があります",
		Explanation: "勤務時間の指定や甲による指揮命令は、業務委託ではなく雇用（偽装請負）と判断される要素になります。",
		SourceRule:  "労働基準法第9条・職業安定法第44条（労働者性の判断）",
		Fix:         "乙は、自らの裁量により本業務を遂行し、甲は乙に対して業務の遂行方法及び作業時間について指揮命令を行わない。",
	},
	{
		ID:       "CP011",
		Name:     "競業避止義務の期間",
		Category: Required,
		Kind:     Threshold,
		Limits: &Limits{
			Scope:     regexp.MustCompile(`競業|競合|同種の(事業|業務)|類似(の|する)(業務|事業)`),
			Term:      nonCompeteTerm,
			Unlimited: regexp.MustCompile(`無期限|期間の定めなく|永久に|永続的に|期間を問わず`),
			Warn:      365,
			Critical:  730,
			Missing:   Clear,
			NoTerm:    Warning,
		},
		Title:       "契約終了後の競業避止義務が長すぎるか、期間が定められていません",
		Explanation: "過度に長い競業避止義務は乙の職業選択の自由を制約し、公序良俗違反として無効となり得ます。期間は1年以内が目安です。",
		SourceRule:  "民法第90条（公序良俗）",
		Fix:         "乙は、本契約終了後1年間、甲の顧客から甲と競合する業務を直接受注しない。",
	},
	{
		ID:       "CP012",
		Name:     "契約不適合責任の期間",
		Category: Required,
		Kind:     Threshold,
		Limits: &Limits{
			Scope:     regexp.MustCompile(`契約不適合|適合しない|瑕疵|不具合`),
			Term:      warrantyTerm,
			Unlimited: regexp.MustCompile(`無期限|期間の定めなく|永久に|期間を問わず`),
			Warn:      365,
			Critical:  1095,
			Missing:   Clear,
			NoTerm:    Warning,
		},
		Title:       "契約不適合責任を負う期間が長すぎるか、定められていません",
		Explanation: "責任期間が長期に及ぶと、納品後も長く無償修補や賠償のリスクを負います。検収後1年以内とするのが一般的です。",
		SourceRule:  "民法第562条・第566条（契約不適合責任）",
		Fix:         "乙は、検収完了後1年以内に甲から通知を受けた契約不適合に限り、修補の責任を負う。",
	},
	{
		ID:       "CP013",
		Name:     "中途解除の30日前予告",
		Category: Required,
		Kind:     Presence,
		Severity: Warning,
		Escalate: continuousContract,
		Patterns: rx(
			`(30|三十)日(前|以上前)[^。]{0,20}(予告|通知|申し出|申入)`,
			`(予告|通知)[^。]{0,10}(30|三十)日前`,
			`(1|一)(か|ヶ|カ)月(前|以上前)[^。]{0,20}(予告|通知|申し出|申入)`,
		),
		Title:       "中途解除の際の30日前予告が定められていません",
		Explanation: "6か月以上の継続的な業務委託を中途解除する場合、少なくとも30日前までに予告しなければなりません。",
		SourceRule:  "フリーランス保護法第16条（解除等の予告）",
		Fix:         "甲又は乙は、相手方に対し30日前までに書面で予告することにより、本契約を解除することができる。",
	},
	{
		ID:          "CP014",
		Name:        "ハラスメント対策",
		Category:    Required,
		Kind:        Presence,
		Severity:    Warning,
		Applies:     strictOnly,
		Patterns:    rx(`ハラスメント`),
		Title:       "ハラスメント防止の体制整備が定められていません",
		Explanation: "従業員を使用する発注者は、フリーランスに対するハラスメントを防止するための相談体制の整備などの措置を講じる義務があります。",
		SourceRule:  "フリーランス保護法第14条（ハラスメント対策）",
		Fix:         "甲は、乙に対するハラスメントの防止のため、相談窓口の設置その他必要な措置を講じる。",
	},
	{
		ID:       "CP015",
		Name:     "支払期日の延期",
		Category: Required,
		Kind:     Risk,
		Severity: Critical,
		Patterns: rx(
			`支払い?(を|の)?(延期|猶予|繰り延べ|遅らせる)`,
			`支払期日を[^。]{0,10}(変更|延長)(する|できる)`,
		),
		Safe:        rx(`延期(しない|することはできない|してはならない)`),
		Title:       "甲の都合で支払を延期できる条項があります",
		Explanation: "定めた支払期日までに報酬を支払わないことは禁止されており、甲の一方的な判断で支払を延期することはできません。",
		SourceRule:  "フリーランス保護法第4条第5項（支払期日までの支払）",
		Fix:         "甲は、定められた支払期日までに報酬を支払うものとし、一方的に支払を延期しない。",
	},

	// Recommended: protective clauses.
	{
		ID:       "CP016",
		Name:     "修正回数の上限（スコープクリープ）",
		Category: Recommended,
		Kind:     Risk,
		Severity: Warning,
		Absent:   Warning,
		Patterns: rx(
			`(何度でも|無制限に|回数を問わず|回数の制限なく)[^。]{0,10}修正`,
			`甲が満足するまで|甲の満足`,
		),
		Safe: rx(
			`[0-9〇一二三四五六七八九十]+回(まで|を上限|を限度)`,
			`修正回数[^。]{0,10}(上限|限度)`,
			`(超える|以降の)修正[^。]{0,20}(別途|有償|追加報酬)`,
		),
		Title:       "修正回数の上限が定められていません",
		Explanation: "修正回数に上限がないと、報酬が変わらないまま作業量だけが増え続けるおそれがあります。",
		SourceRule:  "民法第632条（請負）",
		Fix:         "乙は、検収までの間、成果物について2回まで無償で修正に応じる。これを超える修正は別途有償とする。",
	},
	{
		ID:          "CP017",
		Name:        "仕様変更時の追加報酬",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`追加報酬|追加費用|追加の報酬`, `仕様の?変更[^。]{0,30}(別途|協議)[^。]{0,10}(報酬|費用|料金)`),
		Title:       "仕様変更時の追加報酬が定められていません",
		Explanation: "仕様変更に伴う追加作業の報酬を定めていないと、無償対応を求められる原因になります。",
		SourceRule:  "フリーランス保護法第5条第2項第2号（不当な給付内容の変更）",
		Fix:         "甲が仕様の変更を求める場合、甲乙協議のうえ、追加報酬及び納期を定める。",
	},
	{
		ID:          "CP018",
		Name:        "間接損害の除外",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`間接(的な)?損害|特別(の)?損害|逸失利益|通常かつ直接の損害|直接の損害に限`),
		Title:       "間接損害・逸失利益が賠償範囲から除外されていません",
		Explanation: "逸失利益などの間接損害まで賠償範囲に含まれると、賠償額が予測できなくなります。",
		SourceRule:  "民法第416条（損害賠償の範囲）",
		Fix:         "損害賠償の範囲は、通常かつ直接の損害に限り、間接損害及び逸失利益を含まない。",
	},
	{
		ID:       "CP019",
		Name:     "著作者人格権の不行使",
		Category: Recommended,
		Kind:     Risk,
		Severity: Warning,
		Patterns: rx(`著作者人格権を行使しない`, `著作者人格権[^。]{0,10}(不行使|放棄)`),
		Safe: rx(
			`著作者人格権[^。]{0,40}(氏名表示|クレジット|実績として)`,
			`(氏名表示|クレジット|実績として)[^。]{0,40}著作者人格権`,
		),
		Title:       "著作者人格権を一切行使しないとする条項があります",
		Explanation: "著作者人格権を行使しない旨を約すると、自身の作品として実績公開することや氏名表示を求めることができなくなります。",
		SourceRule:  "著作権法第18条～第20条（著作者人格権）",
		Fix:         "乙は、成果物を自己の実績として公表できることを条件として、甲による通常の利用について著作者人格権を行使しない。",
	},
	{
		ID:          "CP020",
		Name:        "既存知的財産の留保",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Applies:     copyrightOnly,
		Patterns:    rx(`(本契約前|従前|既存|あらかじめ)[^。]{0,30}(著作物|知的財産|ノウハウ)[^。]{0,30}(留保|帰属)`),
		Title:       "乙が従前から保有する知的財産の扱いが定められていません",
		Explanation: "既存の素材やノウハウまで甲に移転すると、他の案件で使えなくなるおそれがあります。",
		SourceRule:  "著作権法第61条（著作権の譲渡）",
		Fix:         "乙が本契約前から保有していた著作物及びノウハウの著作権は乙に留保される。",
	},
	{
		ID:          "CP021",
		Name:        "準委任契約での契約不適合責任",
		Category:    Recommended,
		Kind:        Risk,
		Severity:    Warning,
		Applies:     bestEffortsOnly,
		Patterns:    rx(`契約不適合責任|瑕疵担保責任|成果を保証する|完成を保証する`),
		Title:       "準委任契約なのに完成責任を負わせる条項があります",
		Explanation: "準委任契約の義務は業務の誠実な遂行であり、成果の完成や契約不適合責任を負う性質のものではありません。",
		SourceRule:  "民法第656条・第644条（準委任・善管注意義務）",
		Fix:         "乙は、善良な管理者の注意をもって本業務を遂行するものとし、成果の完成を保証しない。",
	},
	{
		ID:          "CP022",
		Name:        "管轄裁判所",
		Category:    Recommended,
		Kind:        Risk,
		Severity:    Warning,
		Absent:      Warning,
		Patterns:    rx(`甲の(本店|本社|住所)(所在地)?を管轄する[^。]{0,10}裁判所`),
		Safe:        rx(`被告の(本店|住所)`, `乙の(本店|住所)(所在地)?を管轄`),
		Mention:     regexp.MustCompile(`管轄|裁判所`),
		Title:       "管轄裁判所が甲に一方的に有利か、定められていません",
		Explanation: "甲の所在地の裁判所のみを専属管轄とすると、遠方での訴訟を強いられ、紛争時に権利を主張しにくくなります。",
		SourceRule:  "民事訴訟法第11条（管轄の合意）",
		Fix:         "本契約に関する紛争については、被告の住所地を管轄する地方裁判所を第一審の専属的合意管轄裁判所とする。",
	},
	{
		ID:          "CP023",
		Name:        "一方的な解除権",
		Category:    Recommended,
		Kind:        Risk,
		Severity:    Warning,
		Patterns:    rx(`甲は、?(いつでも|何らの催告も?要せず|理由の(如何|いかん)を問わず)[^。]{0,20}解除`),
		Title:       "甲だけが理由なく解除できる条項があります",
		Explanation: "甲のみがいつでも解除できると、準備した作業が報酬なく打ち切られるおそれがあります。",
		SourceRule:  "民法第651条（委任の解除）",
		Fix:         "甲又は乙は、相手方に対し30日前までに書面で予告することにより、本契約を解除することができる。この場合、甲は既履行部分の報酬を支払う。",
	},
	{
		ID:          "CP024",
		Name:        "秘密保持",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`秘密保持|秘密情報|機密情報`),
		Title:       "秘密保持条項がありません",
		Explanation: "双方の秘密情報の扱いを定めていないと、情報漏えい時の責任範囲が不明確になります。",
		SourceRule:  "不正競争防止法第2条第6項（営業秘密）",
		Fix:         "甲及び乙は、本契約に関して知り得た相手方の秘密情報を第三者に開示せず、本契約の目的以外に使用しない。",
	},
	{
		ID:          "CP025",
		Name:        "再委託",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`再委託`),
		Title:       "再委託の可否が定められていません",
		Explanation: "再委託の可否が不明確だと、外部協力者を使った場合に契約違反を主張されるおそれがあります。",
		SourceRule:  "民法第644条の2（復受任者の選任等）",
		Fix:         "乙は、甲の事前の書面による承諾を得て、本業務の一部を第三者に再委託することができる。",
	},
	{
		ID:          "CP026",
		Name:        "遅延損害金",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`遅延損害金|遅延利息`),
		Title:       "支払遅延時の遅延損害金が定められていません",
		Explanation: "遅延損害金の定めがないと、支払遅延に対する抑止力が弱くなります。",
		SourceRule:  "民法第419条（金銭債務の特則）",
		Fix:         "甲が報酬の支払を遅延したときは、年14.6%の割合による遅延損害金を乙に支払う。",
	},
	{
		ID:          "CP027",
		Name:        "経費負担",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`(経費|費用|交通費|実費)[^。]{0,20}(負担|精算)`),
		Title:       "業務に要する経費の負担者が定められていません",
		Explanation: "交通費や素材費などの経費負担を定めていないと、乙が報酬から持ち出すことになりかねません。",
		SourceRule:  "民法第650条（受任者による費用等の償還請求）",
		Fix:         "本業務の遂行に必要な交通費その他の経費は、甲の負担とする。",
	},
	{
		ID:          "CP028",
		Name:        "契約期間",
		Category:    Recommended,
		Kind:        Presence,
		Severity:    Warning,
		Patterns:    rx(`契約期間|有効期間|本契約の期間`),
		Title:       "契約期間が定められていません",
		Explanation: "契約期間が不明確だと、継続的な業務委託に当たるかどうかや解除予告の要否が判断できません。",
		SourceRule:  "フリーランス保護法第3条（取引条件の明示）",
		Fix:         "本契約の有効期間は、〇年〇月〇日から〇年〇月〇日までとする。",
	},
}
