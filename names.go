// names.go — shared name constants: syntax symbols, keywords, builtin type
// and structor names, and the syntax-kind strings used in diagnostics.
package lammm

// Symbols.
const (
	symOpenParen   = '('
	symCloseParen  = ')'
	symOpenSquare  = '['
	symCloseSquare = ']'
	symSpace       = ' '
	symPlus        = '+'
	symMinus       = '-'
	symStar        = '*'
	symSlash       = '/'
	symModulo      = '%'
	symQuestion    = '?'
	symColon       = ':'
)

// Keywords.
const (
	kwDef       = "def"
	kwCase      = "case"
	kwCocase    = "cocase"
	kwIfz       = "ifz"
	kwMuCASCII  = "mu'"
	kwMuCUni    = "μ'"
	kwMuPASCII  = "mu"
	kwMuPUni    = "μ"
	kwEnd       = "<END>"
)

// Syntax-kind names, used as diagnostic context ("while parsing a ...").
const (
	kindVariable     = "variable"
	kindValue        = "value"
	kindMuP          = "mu abstraction"
	kindConstructor  = "constructor"
	kindCocase       = "cocase expression"
	kindCovariable   = "covariable"
	kindMuC          = "mu' abstraction"
	kindDestructor   = "destructor"
	kindCase         = "case expression"
	kindEnd          = "end of computation"
	kindArithmetic   = "arithmetic statement"
	kindIfz          = "if-zero statement"
	kindCut          = "cut statement"
	kindCall         = "call statement"
	kindProducer     = "producer"
	kindConsumer     = "consumer"
	kindStatement    = "statement"
	kindDefinition   = "definition"
	kindDefOrStmt    = "definition or statement"
	kindClause       = "clause"
	kindCaseClause   = "case clause"
	kindCocaseClause = "cocase clause"
	kindParameter    = "parameter"
	kindCoparameter  = "coparameter"
	kindArgument     = "argument"
	kindCoargument   = "coargument"
)

// Misc diagnostic fragments.
const (
	miscArity   = "arity"
	miscCoarity = "coarity"
)

// Builtin type names.
const (
	typeNameInteger  = "Integer"
	typeNameList     = "List"
	typeNamePair     = "Pair"
	typeNameStream   = "Stream"
	typeNameLazyPair = "LazyPair"
	typeNameLambda   = "Lambda"
)

// Builtin structor names.
const (
	structorNameNil  = "Nil"
	structorNameCons = "Cons"
	structorNamePair = "Pair"
	structorNameHead = "Head"
	structorNameTail = "Tail"
	structorNameFst  = "Fst"
	structorNameSnd  = "Snd"
	structorNameAp   = "Ap"
)
